package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// verifyOutput inspects the generator output directory and reports problems
// as issues. Verification never fails the build; missing artifacts only
// downgrade it to a warning.
func verifyOutput(outDir string) []Issue {
	var issues []Issue

	xmlIndex := filepath.Join(outDir, "xml", "index.xml")
	if _, err := os.Stat(xmlIndex); err != nil {
		issues = append(issues, Issue{
			Stage:    StageVerify,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("XML index missing: %s", xmlIndex),
		})
	}

	htmlIndex := filepath.Join(outDir, "html", "index.html")
	data, err := os.ReadFile(htmlIndex)
	if err != nil {
		issues = append(issues, Issue{
			Stage:    StageVerify,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("HTML index missing: %s", htmlIndex),
		})
		return issues
	}

	title, err := htmlTitle(string(data))
	if err != nil || title == "" {
		issues = append(issues, Issue{
			Stage:    StageVerify,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("HTML index has no title: %s", htmlIndex),
		})
		return issues
	}
	issues = append(issues, Issue{
		Stage:    StageVerify,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("generated HTML index titled %q", title),
	})
	return issues
}

// htmlTitle extracts the contents of the first <title> element.
func htmlTitle(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return title, nil
}
