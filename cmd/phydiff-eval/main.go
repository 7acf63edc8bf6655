// cmd/phydiff-eval/main.go
package main

import (
	"phydiff/internal/appshell"
	"phydiff/internal/evalapp"
)

func main() { appshell.Main(evalapp.RunContext) }
