package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fakeyudi/sitefocus/internal/stream"
)

// SetupResult is what the setup wizard collected.
type SetupResult struct {
	Config    Config
	StreamURL string
}

// RunSetup runs the interactive setup wizard on in/out. existing seeds every
// prompt's default (edit mode). Invalid answers fall back to the default.
func RunSetup(in io.Reader, out io.Writer, existing Config, streamURL string) (*SetupResult, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	choose := func(prompt, defaultVal string, options ...string) (string, error) {
		ans, err := ask(fmt.Sprintf("%s (%s)", prompt, strings.Join(options, "/")), defaultVal)
		if err != nil {
			return "", err
		}
		ans = strings.ToLower(ans)
		for _, o := range options {
			if ans == o {
				return o, nil
			}
		}
		return defaultVal, nil
	}

	res := &SetupResult{Config: Merge(&existing, nil), StreamURL: streamURL}
	if res.StreamURL == "" {
		res.StreamURL = stream.DefaultURL
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   sitefocus · first-time setup  │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	url, err := ask("  EEG stream URL", res.StreamURL)
	if err != nil {
		return nil, err
	}
	if stream.ValidateURL(url) == nil {
		res.StreamURL = url
	} else {
		fmt.Fprintf(out, "  ⚠ %q is not a ws:// or wss:// URL, keeping %s\n", url, res.StreamURL)
	}

	res.Config.ListenAddr, err = ask("  Daemon listen address", res.Config.ListenAddr)
	if err != nil {
		return nil, err
	}

	res.Config.Store, err = choose("  Session storage", res.Config.Store, "json", "sqlite", "memory")
	if err != nil {
		return nil, err
	}

	res.Config.DefaultFormat, err = choose("  Default export format", res.Config.DefaultFormat, "markdown", "json", "yaml")
	if err != nil {
		return nil, err
	}

	res.Config.OutputDir, err = ask("  Default export directory", res.Config.OutputDir)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return res, nil
}
