// Package webfetch downloads web pages and converts their HTML into Markdown
// so article and page text can be placed into a prompt.
//
// [Fetch] handles partial URLs, redirects, a body size cap and context
// cancellation. [ToMarkdown] converts HTML that is already in memory, such as
// a local .html file.
package webfetch
