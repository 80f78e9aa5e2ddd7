package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/productcopy"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(productcopy.Command())
}
