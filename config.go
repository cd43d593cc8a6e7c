package video_harvester

import (
	"strings"
	"text/template"
)

const (
	DefaultBaseName   = "VideoBase"
	DefaultBaseNumber = 50
	DefaultExt        = "mp4"
)

// DefaultFilenameTemplate renders "{base}{n} {title}_{quality}.{ext}".
const DefaultFilenameTemplate = "{{.BaseName}}{{.Sequence}} {{.Title}}_{{.Quality}}.{{.Ext}}"

var illegalFilenameChars = strings.NewReplacer(
	`\`, "",
	"/", "",
	"*", "",
	"?", "",
	":", "",
	`"`, "",
	"<", "",
	">", "",
	"|", "",
)

// CleanTitle removes characters that are illegal in file names, then turns spaces into underscores.
func CleanTitle(title string) string {
	title = illegalFilenameChars.Replace(title)
	title = strings.ReplaceAll(title, " ", "_")
	return strings.TrimSpace(title)
}

type NamingConfig struct {
	Ext              string
	FilenameTemplate *template.Template
}

func NewNamingConfig() NamingConfig {
	return NamingConfig{
		Ext:              DefaultExt,
		FilenameTemplate: template.Must(template.New("filename").Parse(DefaultFilenameTemplate)),
	}
}

type filenameTemplateArgs struct {
	BaseName string
	Sequence int
	Title    string
	Quality  string
	Ext      string
}

// Filename builds the output file name for one job. The title is cleaned with CleanTitle; no other argument is
// altered, and the result depends on nothing but the arguments.
func (c NamingConfig) Filename(baseName string, sequence int, title string, quality string) (string, error) {
	args := filenameTemplateArgs{
		BaseName: baseName,
		Sequence: sequence,
		Title:    CleanTitle(title),
		Quality:  quality,
		Ext:      c.Ext,
	}
	builder := strings.Builder{}
	if err := c.FilenameTemplate.Execute(&builder, &args); err != nil {
		return "", err
	} else {
		return builder.String(), nil
	}
}

var defaultNaming = NewNamingConfig()

// BuildFilename is NamingConfig.Filename with the default template and extension.
func BuildFilename(baseName string, sequence int, title string, quality string) string {
	name, err := defaultNaming.Filename(baseName, sequence, title, quality)
	if err != nil {
		// The default template only references fields that always exist
		panic(err)
	}
	return name
}
