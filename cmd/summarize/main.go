// Command summarize answers a query about documents and web pages.
package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/summarize"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(summarize.Command())
}
