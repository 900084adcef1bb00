// Command cli is a small client for manual verification against a
// running node: put a value, read it back from any member, delete it.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		usage()
		return fmt.Errorf("not enough arguments")
	}

	command, key := args[0], args[1]

	switch command {
	case "get":
		return get(baseURL(args, 2), key)
	case "put":
		if len(args) < 3 {
			usage()
			return fmt.Errorf("put needs a value")
		}
		return put(baseURL(args, 3), key, args[2])
	case "del":
		return del(baseURL(args, 2), key)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func baseURL(args []string, idx int) string {
	if len(args) > idx {
		return strings.TrimSuffix(args[idx], "/")
	}
	return defaultBaseURL
}

func get(base, key string) error {
	resp, err := http.Get(base + "/kv/" + key)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		_, err := io.Copy(os.Stdout, resp.Body)
		return err
	case http.StatusNotFound:
		return fmt.Errorf("key %q not found", key)
	default:
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}
}

func put(base, key, value string) error {
	req, err := http.NewRequest(http.MethodPut, base+"/kv/"+key, strings.NewReader(value))
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

func del(base, key string) error {
	req, err := http.NewRequest(http.MethodDelete, base+"/kv/"+key, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  cli get <key> [base_url]
  cli put <key> <value> [base_url]
  cli del <key> [base_url]`)
}
