package codegen

import (
	"fmt"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:python)?\\s*\\n(.*?)```")

// ExtractSource pulls the Manim source out of a model reply. It prefers the
// first fenced code block; a reply that already starts with an import or a
// class definition is accepted verbatim.
func ExtractSource(reply string) string {
	if m := fenceRe.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "from ") || strings.HasPrefix(trimmed, "import ") ||
		strings.HasPrefix(trimmed, "class ") {
		return trimmed
	}
	return ""
}

var wordRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// SceneClassName derives the suggested Manim class name for a scene, e.g.
// "Scene2_RightTriangles" for title "right triangles" at index 1.
func SceneClassName(title string, index int) string {
	var b strings.Builder
	for _, w := range wordRe.FindAllString(title, -1) {
		b.WriteString(strings.ToUpper(w[:1]))
		if len(w) > 1 {
			b.WriteString(w[1:])
		}
	}
	name := b.String()
	if name == "" {
		name = "Animation"
	}
	return fmt.Sprintf("Scene%d_%s", index+1, name)
}
