package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/interpreter"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(interpreter.Command())
}
