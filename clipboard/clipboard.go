// Package clipboard copies transcribed text to the system clipboard and
// optionally pastes it into the focused application.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}
