// cmd/phydiff/main.go
package main

import (
	"phydiff/internal/appshell"
	"phydiff/internal/estimateapp"
)

func main() { appshell.Main(estimateapp.RunContext) }
