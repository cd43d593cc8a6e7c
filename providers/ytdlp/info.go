package ytdlp

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/generic"
)

var ErrNoInfo = errors.New("yt-dlp printed no video info")

type infoJSON struct {
	Title   string       `json:"title"`
	Formats []formatJSON `json:"formats"`
	// Results with a single format carry the format fields at the top level.
	formatJSON
}

type formatJSON struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Width          *float64 `json:"width"`
	Height         *float64 `json:"height"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	TBR            *float64 `json:"tbr"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
	FormatNote     string   `json:"format_note"`
}

func (f formatJSON) encoding() video_harvester.Encoding {
	return video_harvester.Encoding{
		FormatID:       f.FormatID,
		Ext:            f.Ext,
		Width:          positiveInt(f.Width),
		Height:         positiveInt(f.Height),
		VCodec:         generic.FromPointer(f.VCodec).UnwrapOrDefault(),
		ACodec:         generic.FromPointer(f.ACodec).UnwrapOrDefault(),
		TBR:            generic.FromPointer(f.TBR),
		Filesize:       positiveInt64(f.Filesize),
		FilesizeApprox: positiveInt64(f.FilesizeApprox),
		FormatNote:     f.FormatNote,
	}
}

func positiveInt(v *float64) generic.Option[int] {
	if v == nil || *v <= 0 {
		return generic.None[int]()
	}
	return generic.Some(int(math.Round(*v)))
}

func positiveInt64(v *float64) generic.Option[int64] {
	if v == nil || *v <= 0 {
		return generic.None[int64]()
	}
	return generic.Some(int64(math.Round(*v)))
}

// ParseInfo reads the output of --dump-single-json, skipping any log lines printed before it. The JSON object may
// span several lines.
func ParseInfo(output []byte) (*video_harvester.Catalog, error) {
	start := jsonStart(output)
	if start < 0 {
		return nil, ErrNoInfo
	}
	var info infoJSON
	if err := json.NewDecoder(bytes.NewReader(output[start:])).Decode(&info); err != nil {
		return nil, err
	}
	return info.catalog(), nil
}

// jsonStart finds the first line whose first non-blank byte is '{'.
func jsonStart(output []byte) int {
	for offset := 0; offset < len(output); {
		line := output[offset:]
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i+1]
		}
		if trimmed := bytes.TrimLeft(line, " \t\r"); len(trimmed) > 0 && trimmed[0] == '{' {
			return offset + len(line) - len(trimmed)
		}
		offset += len(line)
	}
	return -1
}

func (i infoJSON) catalog() *video_harvester.Catalog {
	catalog := &video_harvester.Catalog{Title: strings.TrimSpace(i.Title)}
	if len(i.Formats) == 0 && i.FormatID != "" {
		catalog.Encodings = []video_harvester.Encoding{i.formatJSON.encoding()}
		return catalog
	}
	catalog.Encodings = make([]video_harvester.Encoding, 0, len(i.Formats))
	for _, f := range i.Formats {
		catalog.Encodings = append(catalog.Encodings, f.encoding())
	}
	return catalog
}
