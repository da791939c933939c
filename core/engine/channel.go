package engine

import "strings"

// ExpandChannel returns every subscription pattern that matches a message
// published to channel: the recursive wildcard of each ancestor, the
// single-segment wildcard of its parent and the channel itself.
//
//	ExpandChannel("/foo/bar") // ["/**", "/foo/**", "/foo/*", "/foo/bar"]
func ExpandChannel(channel string) []string {
	if channel == "" {
		return nil
	}
	segments := strings.Split(strings.TrimPrefix(channel, "/"), "/")

	patterns := make([]string, 0, len(segments)+2)
	patterns = append(patterns, "/**")

	prefix := ""
	for _, segment := range segments[:len(segments)-1] {
		prefix += "/" + segment
		patterns = append(patterns, prefix+"/**")
	}
	return append(patterns, prefix+"/*", channel)
}
