package run

import (
	"encoding/json"
	"fmt"
	"os"

	"surveystat/domain/core"
)

// Fingerprint identifies the inputs of a run: the same file contents analysed with
// the same parameters always produce the same fingerprint.
func Fingerprint(sourceDigest string, params Parameters) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%+v", params))
	}
	data := fmt.Sprintf("source:%s|params:%s", sourceDigest, encoded)
	return core.NewHash([]byte(data)).String()
}

// FileDigest returns the SHA-256 of a file's contents
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := core.HashReader(f)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}
