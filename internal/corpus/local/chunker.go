package local

import "strings"

// chunk splits text into overlapping windows of roughly size tokens with the
// given overlap, both in token units. Tokens are approximated by whitespace
// splitting; the managed service tokenizes properly, this provider only needs
// comparable chunk geometry.
func chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		return []string{strings.Join(words, " ")}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
