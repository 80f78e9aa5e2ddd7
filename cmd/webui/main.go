// Command webui serves the multi-LLM chat and image generator pages.
package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/webui"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(webui.Command())
}
