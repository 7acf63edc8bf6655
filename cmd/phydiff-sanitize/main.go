// cmd/phydiff-sanitize/main.go
package main

import (
	"phydiff/internal/appshell"
	"phydiff/internal/sanitizeapp"
)

func main() { appshell.Main(sanitizeapp.RunContext) }
