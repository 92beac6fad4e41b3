package annotation

import (
	"regexp"
	"strings"
)

// Tag names a delimited region embedded in a free-text remark, written <tag>...</tag>
type Tag string

const (
	TagSchema           Tag = "schema"
	TagParameters       Tag = "parameters"
	TagListParameters   Tag = "list_parameters"
	TagGetParameters    Tag = "get_parameters"
	TagPostParameters   Tag = "post_parameters"
	TagPutParameters    Tag = "put_parameters"
	TagPatchParameters  Tag = "patch_parameters"
	TagDeleteParameters Tag = "delete_parameters"
	TagPathParameters   Tag = "path_parameters"
	TagSchemaParameters Tag = "schema_parameters"
)

// Tags lists every region the engine reads
var Tags = []Tag{
	TagSchema, TagParameters,
	TagListParameters, TagGetParameters, TagPostParameters, TagPutParameters,
	TagPatchParameters, TagDeleteParameters, TagPathParameters, TagSchemaParameters,
}

var patterns = func() map[Tag]*regexp.Regexp {
	m := make(map[Tag]*regexp.Regexp, len(Tags))
	for _, t := range Tags {
		m[t] = compile(t)
	}
	return m
}()

func compile(t Tag) *regexp.Regexp {
	name := regexp.QuoteMeta(string(t))
	return regexp.MustCompile(`(?s)<` + name + `>(.*?)</` + name + `>`)
}

func pattern(t Tag) *regexp.Regexp {
	if re, ok := patterns[t]; ok {
		return re
	}
	return compile(t)
}

// Extract returns the content of the first <tag>...</tag> region in text.
// The match is non-greedy: it ends at the first closing tag after the opening one.
func Extract(text string, t Tag) (string, bool) {
	m := pattern(t).FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Strip removes every <tag>...</tag> region from text and trims the result
func Strip(text string, t Tag) string {
	return strings.TrimSpace(pattern(t).ReplaceAllString(text, ""))
}
