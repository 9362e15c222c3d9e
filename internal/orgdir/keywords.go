package orgdir

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

var (
	keywordRe  = regexp.MustCompile(`^#\+(\w+):(\s+.*)?$`)
	headlineRe = regexp.MustCompile(`^\*+\s`)
	commentRe  = regexp.MustCompile(`^\s*#`)
)

// ReadFileKeywords reads top-of-file `#+KEY: value` keywords without
// involving the editor. Keys are upper-cased and repeated keys
// accumulate in order.
//
// Only the initial section up to its first element is read. Keywords
// directly preceding an element, with no blank line between, count as
// that element's affiliated keywords and are dropped rather than
// reported as file keywords.
func ReadFileKeywords(r io.Reader) (map[string][]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	keywords := map[string][]string{}

	// Keywords seen on the current run of consecutive lines. They stay
	// provisional until something other than an element follows.
	current := map[string][]string{}
	use := func() {
		for key, values := range current {
			keywords[key] = append(keywords[key], values...)
		}
		clear(current)
	}

	for scanner.Scan() {
		line := scanner.Text()

		if m := keywordRe.FindStringSubmatch(line); m != nil {
			key := strings.ToUpper(m[1])
			value := strings.TrimSpace(m[2])
			current[key] = append(current[key], value)
			continue
		}

		if strings.TrimSpace(line) == "" {
			use()
			continue
		}

		if commentRe.MatchString(line) {
			use()
			continue
		}

		if headlineRe.MatchString(line) {
			break
		}

		// Some other element. The run directly above it may be its
		// affiliated keywords, so it is discarded, not used.
		clear(current)
		break
	}
	use()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keywords, nil
}
