package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/travelblog"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(travelblog.Command())
}
