package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/speech2image"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(speech2image.Command())
}
