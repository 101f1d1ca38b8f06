package chat

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	maxWebResponseSize = 5 * 1024 * 1024
	webFetchTimeout    = 30 * time.Second
)

var webClient = &http.Client{Timeout: webFetchTimeout}

// expandInsertCommands rewrites a message body before it is sent: lines of the
// form ":read <path>" are replaced with the file's contents and ":web <url>"
// lines with the page's extracted text. Any failure cancels the whole send.
func expandInsertCommands(input string, status io.Writer) (string, error) {
	var result []string

	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, ":read "):
			path := expandHome(strings.TrimSpace(trimmed[len(":read "):]))
			fmt.Fprintf(status, "Embedding file: %s\n", path)
			contents, err := readTextFile(path)
			if err != nil {
				return "", err
			}
			result = append(result, strings.TrimRight(contents, "\n "))

		case strings.HasPrefix(trimmed, ":web "):
			rawURL := strings.TrimSpace(trimmed[len(":web "):])
			fmt.Fprintf(status, "Embedding url: %s\n", rawURL)
			text, err := fetchPageText(rawURL)
			if err != nil {
				return "", err
			}
			result = append(result, fmt.Sprintf("The following text was extracted from %s:\n%s", rawURL, text))

		default:
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n"), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// readTextFile reads a file for embedding, rejecting anything that looks
// binary by extension or content.
func readTextFile(path string) (string, error) {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		if !strings.HasPrefix(mimeType, "text/") && !strings.HasPrefix(mimeType, "application/json") {
			return "", fmt.Errorf(":read file appears to be binary: %s", path)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("could not :read file %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf(":read file appears to be binary: %s", path)
	}
	return string(data), nil
}

// fetchPageText downloads a page and extracts its visible text.
func fetchPageText(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("could not parse url %s", rawURL)
	}

	resp, err := webClient.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("could not :web url %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("could not :web url %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebResponseSize))
	if err != nil {
		return "", fmt.Errorf("could not :web url %s: %w", rawURL, err)
	}

	text, err := extractText(body)
	if err != nil || text == "" {
		return "", fmt.Errorf("could not :web url %s: no text extracted", rawURL)
	}
	return text, nil
}

// extractText pulls the visible text out of an HTML document, skipping
// script, style and similar containers.
func extractText(htmlContent []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	var extract func(*html.Node, bool)
	extract = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "object", "embed":
				skip = true
			}
		}
		if n.Type == html.TextNode && !skip {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c, skip)
		}
	}
	extract(doc, false)

	return strings.TrimSpace(text.String()), nil
}
