package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/img2img"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(img2img.Command())
}
