// Command dictionary prints an English-Finnish dictionary entry as JSON.
package main

import (
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/dictionary"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cli.Main(dictionary.Command())
}
