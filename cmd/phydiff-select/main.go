// cmd/phydiff-select/main.go
package main

import (
	"phydiff/internal/appshell"
	"phydiff/internal/selectapp"
)

func main() { appshell.Main(selectapp.RunContext) }
