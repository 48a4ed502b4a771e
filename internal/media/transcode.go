package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTranscoderUnavailable is returned when the external filter binary
// cannot be found. Callers treat it the same as a failed conversion:
// fall back to the original payload.
var ErrTranscoderUnavailable = errors.New("transcoder unavailable")

// Profile describes a target encoding for the external audio filter.
type Profile struct {
	Name     string
	Args     []string
	Mimetype string
	Ext      string
}

var (
	// ProfileVoiceNote is the OGG Opus encoding WhatsApp expects for
	// voice notes.
	ProfileVoiceNote = Profile{
		Name:     "voice-note",
		Args:     []string{"-c:a", "libopus", "-b:a", "64k"},
		Mimetype: "audio/ogg; codecs=opus",
		Ext:      ".ogg",
	}

	// ProfileMP3 targets legacy clients without OGG Opus support.
	ProfileMP3 = Profile{
		Name:     "mp3",
		Args:     []string{"-c:a", "libmp3lame", "-b:a", "128k"},
		Mimetype: "audio/mpeg",
		Ext:      ".mp3",
	}
)

// Transcoder converts a binary payload to the given profile. It is an
// injected capability: the session manager depends on it but never
// implements it, and every failure mode has a defined fallback.
type Transcoder interface {
	Transcode(ctx context.Context, data []byte, profile Profile) ([]byte, string, error)
}

// FFmpeg shells out to an ffmpeg binary through temp files.
type FFmpeg struct {
	bin    string
	tmpDir string
	logger *zap.Logger
}

// NewFFmpeg creates a transcoder using the given ffmpeg binary and temp
// directory.
func NewFFmpeg(bin, tmpDir string, logger *zap.Logger) *FFmpeg {
	return &FFmpeg{bin: bin, tmpDir: tmpDir, logger: logger}
}

// Transcode converts data to the profile's encoding. Returns the
// converted bytes and their mimetype, or ErrTranscoderUnavailable when
// ffmpeg is not installed.
func (f *FFmpeg) Transcode(ctx context.Context, data []byte, profile Profile) ([]byte, string, error) {
	bin, err := exec.LookPath(f.bin)
	if err != nil {
		return nil, "", ErrTranscoderUnavailable
	}

	if err := os.MkdirAll(f.tmpDir, 0700); err != nil {
		return nil, "", fmt.Errorf("create tmp dir: %w", err)
	}

	id := uuid.New().String()
	inPath := filepath.Join(f.tmpDir, "in_"+id)
	outPath := filepath.Join(f.tmpDir, "out_"+id+profile.Ext)
	defer func() {
		_ = os.Remove(inPath)
		_ = os.Remove(outPath)
	}()

	if err := os.WriteFile(inPath, data, 0600); err != nil {
		return nil, "", fmt.Errorf("write input: %w", err)
	}

	args := append([]string{"-i", inPath}, profile.Args...)
	args = append(args, "-y", outPath)
	cmd := exec.CommandContext(ctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		f.logger.Warn("ffmpeg conversion failed",
			zap.String("profile", profile.Name),
			zap.Error(err),
			zap.ByteString("output", out))
		return nil, "", fmt.Errorf("ffmpeg %s: %w", profile.Name, err)
	}

	converted, err := os.ReadFile(outPath)
	if err != nil {
		return nil, "", fmt.Errorf("read output: %w", err)
	}
	if len(converted) == 0 {
		return nil, "", fmt.Errorf("ffmpeg %s: empty output", profile.Name)
	}

	return converted, profile.Mimetype, nil
}
