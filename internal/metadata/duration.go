package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// FormatDuration renders seconds as M:SS, the form used by the song form.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// audioDuration returns the playing time of an audio file in whole seconds
func audioDuration(path string) (int, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return durationMP3(path)
	case ".flac":
		return durationFLAC(path)
	case ".wav":
		return durationWAV(path)
	case ".m4a":
		return durationM4A(path)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// durationMP3 sums decoded frame durations, estimating from size when no frame decodes.
func durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var (
		total   time.Duration
		skipped int
		frames  int
	)
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return estimateFromSize(f, 192000)
		}
		total += fr.Duration()
		frames++
	}
	return roundSeconds(total.Seconds()), nil
}

// durationFLAC reads the STREAMINFO block
func durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	info := stream.Info
	if info.NSamples == 0 || info.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}
	return roundSeconds(float64(info.NSamples) / float64(info.SampleRate)), nil
}

// durationWAV derives the length from the header and the PCM payload size
func durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if dec.SampleRate == 0 || frameSize <= 0 {
		return 0, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	const headerSize = 44
	pcm := max(st.Size()-headerSize, 0)
	return roundSeconds(float64(pcm/frameSize) / float64(dec.SampleRate)), nil
}

// durationM4A reads timescale and duration from the moov/mvhd atom.
func durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	size, err := seekAtom(f, "moov", -1)
	if err != nil {
		return 0, err
	}
	if _, err := seekAtom(f, "mvhd", size-8); err != nil {
		return 0, err
	}

	var version [4]byte // version + flags
	if _, err := io.ReadFull(f, version[:]); err != nil {
		return 0, err
	}
	if version[0] == 1 {
		var hdr struct {
			Created, Modified uint64
			Timescale         uint32
			Duration          uint64
		}
		if err := binary.Read(f, binary.BigEndian, &hdr); err != nil {
			return 0, err
		}
		return scaled(float64(hdr.Duration), hdr.Timescale)
	}

	var hdr struct {
		Created, Modified uint32
		Timescale         uint32
		Duration          uint32
	}
	if err := binary.Read(f, binary.BigEndian, &hdr); err != nil {
		return 0, err
	}
	return scaled(float64(hdr.Duration), hdr.Timescale)
}

// seekAtom advances r to the body of the first atom named name within limit
// bytes (-1 for no limit) and returns that atom's total size.
func seekAtom(r io.ReadSeeker, name string, limit int64) (int64, error) {
	for read := int64(0); limit < 0 || read < limit; {
		var head [8]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return 0, fmt.Errorf("%s atom not found: %w", name, err)
		}
		size := int64(binary.BigEndian.Uint32(head[:4]))
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if string(head[4:]) == name {
			return size, nil
		}
		if _, err := r.Seek(size-8, io.SeekCurrent); err != nil {
			return 0, err
		}
		read += size
	}
	return 0, fmt.Errorf("%s atom not found", name)
}

func scaled(units float64, timescale uint32) (int, error) {
	if timescale == 0 {
		return 0, fmt.Errorf("invalid timescale")
	}
	return roundSeconds(units / float64(timescale)), nil
}

// estimateFromSize is the last resort when frames cannot be parsed
func estimateFromSize(f *os.File, bitrate int64) (int, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return int(st.Size() * 8 / bitrate), nil
}

func roundSeconds(secs float64) int {
	return int(secs + 0.5)
}
