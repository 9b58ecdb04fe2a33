// internal/faces/faces.go
//
// Card face catalogue: maps each pair ID to the image drawn on its cards.
//
// Initialization behavior (Init):
//   1. If path is non-empty, read one image path per line from that file.
//   2. Otherwise use the embedded default list (assets/cards.txt).
// Blank lines and lines starting with '#' are skipped. Line N is pair ID N.
// Initialization is run once (sync.Once).

package faces

import (
	"bufio"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/concentration/assets"
)

var (
	initOnce   sync.Once
	list       []string
	initialErr error
)

// Init loads the face list exactly once.
// Returns an error if the list ends up empty.
func Init(path string) error {
	initOnce.Do(func() {
		var err error
		if path != "" {
			list, err = readFaceFile(path)
		} else {
			list, err = assets.CardFaces()
		}
		if err != nil {
			initialErr = err
			return
		}
		if len(list) == 0 {
			initialErr = errors.New("faces: list is empty")
		}
	})
	return initialErr
}

func readFaceFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// Count reports how many distinct faces are available.
func Count() int { return len(list) }

// Image returns the image path for pairID (1-based), or "" if out of range.
func Image(pairID int) string {
	if pairID < 1 || pairID > len(list) {
		return ""
	}
	return list[pairID-1]
}

// All returns the first n faces (all of them if n exceeds the list).
func All(n int) []string {
	if n > len(list) || n < 0 {
		n = len(list)
	}
	return append([]string(nil), list[:n]...)
}
