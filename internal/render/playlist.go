package render

import (
	"fmt"
	"strings"
)

const (
	DefaultGuideURL     = "https://epg.112114.xyz/pp.xml.gz"
	DefaultLogoTemplate = "https://epg.112114.xyz/logo/{name}.png"

	nameToken = "{name}"
)

// PlaylistOptions sets the header guide URL and the logo URL template.
// "{name}" in LogoTemplate is replaced by the channel name; an empty
// template omits tvg-logo.
type PlaylistOptions struct {
	GuideURL     string
	LogoTemplate string
}

// DefaultPlaylistOptions returns the stock guide and logo endpoints.
func DefaultPlaylistOptions() PlaylistOptions {
	return PlaylistOptions{GuideURL: DefaultGuideURL, LogoTemplate: DefaultLogoTemplate}
}

// Playlist converts sectioned text into an extended playlist. Section
// headers set the group of the lines that follow; blank lines and lines
// without a comma are skipped.
func Playlist(text string, opts PlaylistOptions) string {
	var sb strings.Builder
	sb.WriteString("#EXTM3U")
	if opts.GuideURL != "" {
		fmt.Fprintf(&sb, ` x-tvg-url="%s"`, opts.GuideURL)
	}
	sb.WriteByte('\n')
	group := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, u, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		name, u = strings.TrimSpace(name), strings.TrimSpace(u)
		if u == GenreMarker {
			group = name
			continue
		}
		sb.WriteString(`#EXTINF:-1 tvg-name="` + name + `"`)
		if opts.LogoTemplate != "" {
			sb.WriteString(` tvg-logo="` + LogoURL(opts.LogoTemplate, name) + `"`)
		}
		sb.WriteString(` group-title="` + group + `",` + name + "\n")
		sb.WriteString(u + "\n")
	}
	return sb.String()
}

// LogoURL fills the channel name into tmpl.
func LogoURL(tmpl, name string) string {
	return strings.ReplaceAll(tmpl, nameToken, name)
}
