package plan

import (
	"regexp"
	"strings"
)

var (
	planRe  = regexp.MustCompile(`(?s)SCENE PLAN BEGIN:(.*?)SCENE PLAN END:`)
	sceneRe = regexp.MustCompile(`\[Scene \d+\]`)
)

// sceneFields lists the labeled fields of a scene block, in the order the
// planner emits them. Each field's value runs until the next field label or
// the end of the block.
var sceneFields = []string{"Title:", "Purpose:", "Description:", "Layout:", "Narration:"}

// ParseScenes extracts the scene plan from raw planner output. Content
// between SCENE PLAN BEGIN: and SCENE PLAN END: is split on [Scene N]
// markers; each block yields one Scene. If the markers are absent the whole
// output is scanned, which tolerates models that skip the framing.
func ParseScenes(output string) []Scene {
	text := output
	if m := planRe.FindStringSubmatch(output); m != nil {
		text = m[1]
	}

	var scenes []Scene
	for _, block := range sceneRe.Split(text, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		s := parseSceneBlock(block)
		if s.Title == "" && s.Description == "" && s.Narration == "" {
			continue
		}
		s.Index = len(scenes)
		scenes = append(scenes, s)
	}
	return scenes
}

func parseSceneBlock(block string) Scene {
	var s Scene
	for i, field := range sceneFields {
		start := strings.Index(block, field)
		if start < 0 {
			continue
		}
		value := block[start+len(field):]
		// Cut at the nearest following field label.
		end := len(value)
		for _, other := range sceneFields[i+1:] {
			if idx := strings.Index(value, other); idx >= 0 && idx < end {
				end = idx
			}
		}
		v := strings.TrimSpace(value[:end])
		switch field {
		case "Title:":
			s.Title = v
		case "Purpose:":
			s.Purpose = v
		case "Description:":
			s.Description = v
		case "Layout:":
			s.Layout = v
		case "Narration:":
			s.Narration = strings.Trim(v, `"'`)
		}
	}
	return s
}
