package commands_test

import "os"

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)

	return string(data), err
}
