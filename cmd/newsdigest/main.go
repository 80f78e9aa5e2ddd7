package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/newsdigest"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(newsdigest.Command())
}
