package engine

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// LocalFilename derives the local name for a downloaded file from its project
// path and repository path. Path separators become double underscores (so
// "group/app" + "src/main.go" -> "group__app__src__main.go") and any other
// character outside [a-zA-Z0-9._-] collapses to a single underscore.
//
// The transform is total and deterministic. It is not injective: pathological
// inputs that differ only in replaced characters can collide. Real project
// and file paths don't, which is why the combined project+file prefix is part
// of the name in the first place.
func LocalFilename(projectPath, filePath string) string {
	combined := projectPath + "__" + filePath
	combined = strings.ReplaceAll(combined, "/", "__")
	return unsafeFilenameChars.ReplaceAllString(combined, "_")
}
