package main

import "github.com/AntonioRosa312/312-SuperSeniors/internal/cli"

func main() {
	cli.Execute()
}
