package main

import "github.com/aluiziolira/go-vitibrasil/cmd/vitibrasil/cmd"

func main() {
	cmd.Execute()
}
