package video_harvester

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/alanbriolat/video-harvester/generic"
)

const codecNone = "none"

// UnknownSize is shown in place of a size when neither filesize nor filesize_approx is known.
const UnknownSize = "unknown size"

// An Encoding is one entry of an extractor's format list, as described without downloading anything.
type Encoding struct {
	FormatID       string                  `json:"format_id"`
	Ext            string                  `json:"ext"`
	Width          generic.Option[int]     `json:"width"`
	Height         generic.Option[int]     `json:"height"`
	VCodec         string                  `json:"vcodec"`
	ACodec         string                  `json:"acodec"`
	TBR            generic.Option[float64] `json:"tbr"`
	Filesize       generic.Option[int64]   `json:"filesize"`
	FilesizeApprox generic.Option[int64]   `json:"filesize_approx"`
	FormatNote     string                  `json:"format_note"`
}

// HasVideo is false only when the extractor says there is no video stream; an unknown codec counts as video.
func (e Encoding) HasVideo() bool {
	return e.VCodec != codecNone
}

func (e Encoding) HasAudio() bool {
	return e.ACodec != "" && e.ACodec != codecNone
}

var noteHeightPattern = regexp.MustCompile(`(\d+)p`)

// ResolvedHeight is the explicit height, or the first "NNNp" in the format note.
func (e Encoding) ResolvedHeight() generic.Option[int] {
	return e.Height.OrElse(func() generic.Option[int] {
		if m := noteHeightPattern.FindStringSubmatch(e.FormatNote); m != nil {
			if h, err := strconv.Atoi(m[1]); err == nil {
				return generic.Some(h)
			}
		}
		return generic.None[int]()
	})
}

// ApproxSize prefers filesize over filesize_approx.
func (e Encoding) ApproxSize() generic.Option[int64] {
	return e.Filesize.Or(e.FilesizeApprox)
}

// A Catalog is everything a Source could describe about a video without downloading it.
type Catalog struct {
	Title     string     `json:"title"`
	Encodings []Encoding `json:"encodings"`
}

// A FormatOption is a selectable encoding, as offered to the user.
type FormatOption struct {
	FormatID        string                  `json:"format_id"`
	Height          generic.Option[int]     `json:"height"`
	Combined        bool                    `json:"combined"`
	Bitrate         generic.Option[float64] `json:"bitrate"`
	ApproxSizeBytes generic.Option[int64]   `json:"approx_size_bytes"`
	VCodec          string                  `json:"vcodec"`
	ACodec          string                  `json:"acodec"`
	Ext             string                  `json:"ext"`
	DisplayLabel    string                  `json:"display_label"`
}

// QualityLabel is "720p" style, or "" when the height is unknown.
func (o FormatOption) QualityLabel() string {
	if o.Height.IsNone() {
		return ""
	}
	return HeightLabel(o.Height.Value)
}

// SizeLabel is the approximate size in MB, or UnknownSize.
func (o FormatOption) SizeLabel() string {
	return FormatSize(o.ApproxSizeBytes)
}

// FetchSelector is the yt-dlp format expression used to download this option, falling back to the best stream at or
// below its height if the exact format has gone away.
func (o FormatOption) FetchSelector() string {
	if o.Height.IsNone() {
		if o.Combined {
			return o.FormatID + "/best"
		}
		return o.FormatID + "+bestaudio/" + o.FormatID
	}
	h := o.Height.Value
	if o.Combined {
		return fmt.Sprintf("%s/best[height<=%d]", o.FormatID, h)
	}
	return fmt.Sprintf("%s+bestaudio/bestvideo[height<=%d]+bestaudio/best[height<=%d]", o.FormatID, h, h)
}

func HeightLabel(height int) string {
	return strconv.Itoa(height) + "p"
}

// ParseHeightLabel accepts "720p" or "720".
func ParseHeightLabel(label string) (int, bool) {
	if n := len(label); n > 0 && label[n-1] == 'p' {
		label = label[:n-1]
	}
	h, err := strconv.Atoi(label)
	if err != nil || h <= 0 {
		return 0, false
	}
	return h, true
}

// FormatSize renders a byte count as "12.34 MB".
func FormatSize(size generic.Option[int64]) string {
	if size.IsNone() || size.Value <= 0 {
		return UnknownSize
	}
	return fmt.Sprintf("%.2f MB", float64(size.Value)/(1024*1024))
}

func newFormatOption(e Encoding, height generic.Option[int]) FormatOption {
	o := FormatOption{
		FormatID:        e.FormatID,
		Height:          height,
		Combined:        e.HasVideo() && e.HasAudio(),
		Bitrate:         e.TBR,
		ApproxSizeBytes: e.ApproxSize(),
		VCodec:          codecName(e.VCodec),
		ACodec:          codecName(e.ACodec),
		Ext:             e.Ext,
	}
	if height.IsSome() {
		o.DisplayLabel = fmt.Sprintf("%s [%s+%s] %s", HeightLabel(height.Value), o.VCodec, o.ACodec, o.SizeLabel())
	} else {
		o.DisplayLabel = fmt.Sprintf("%s [%s+%s] %s", e.FormatID, o.VCodec, o.ACodec, o.SizeLabel())
	}
	return o
}

func codecName(codec string) string {
	if codec == "" {
		return "unknown"
	}
	return codec
}

func usable(e Encoding) bool {
	return e.HasVideo() || e.HasAudio()
}

// SelectBest picks the encoding to download at exactly the target height. Audio+video entries always beat video-only
// ones; within a class the highest bitrate wins and the first seen wins a tie. A missing bitrate counts as zero.
// Returns false if nothing has that height.
func SelectBest(encodings []Encoding, height int) (FormatOption, bool) {
	var best *Encoding
	for i := range encodings {
		e := &encodings[i]
		if !e.HasVideo() {
			continue
		}
		if h := e.ResolvedHeight(); h.IsNone() || h.Value != height {
			continue
		}
		if best == nil || better(*e, *best) {
			best = e
		}
	}
	if best == nil {
		return FormatOption{}, false
	}
	return newFormatOption(*best, generic.Some(height)), true
}

func better(candidate, current Encoding) bool {
	candidateCombined := candidate.HasAudio()
	currentCombined := current.HasAudio()
	if candidateCombined != currentCombined {
		return candidateCombined
	}
	return candidate.TBR.UnwrapOr(0) > current.TBR.UnwrapOr(0)
}

// ListAll returns every usable encoding whose height can be determined, best first: height, then audio+video before
// video-only, then bitrate, then approximate size.
func ListAll(encodings []Encoding) []FormatOption {
	options := make([]FormatOption, 0, len(encodings))
	for _, e := range encodings {
		if !usable(e) {
			continue
		}
		height := e.ResolvedHeight()
		if height.IsNone() {
			continue
		}
		options = append(options, newFormatOption(e, height))
	}
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.Height.Value != b.Height.Value {
			return a.Height.Value > b.Height.Value
		}
		if a.Combined != b.Combined {
			return a.Combined
		}
		if ab, bb := a.Bitrate.UnwrapOr(0), b.Bitrate.UnwrapOr(0); ab != bb {
			return ab > bb
		}
		return a.ApproxSizeBytes.UnwrapOr(0) > b.ApproxSizeBytes.UnwrapOr(0)
	})
	return options
}

// FindOption looks up an option by format ID.
func FindOption(options []FormatOption, formatID string) (FormatOption, bool) {
	for _, o := range options {
		if o.FormatID == formatID {
			return o, true
		}
	}
	return FormatOption{}, false
}
