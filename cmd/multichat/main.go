package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/multichat"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(multichat.Command())
}
