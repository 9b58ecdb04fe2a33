package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed cards.txt sql/*.sql
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
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

// CardFaces returns the embedded face list; entry i is the image for pair ID i+1.
func CardFaces() ([]string, error) {
	return readLines("cards.txt")
}

// Migrations returns the embedded SQL migrations rooted at their directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	return sub
}
