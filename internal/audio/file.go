package audio

import (
	"context"
	"fmt"

	"aura/pkg/audioconv"
)

// FileSource replays a decoded audio file as 16 kHz mono blocks, then
// closes. Blocks are never dropped.
type FileSource struct {
	*Feed
	path string
}

func OpenFile(ctx context.Context, path string, blockFrames int) (*FileSource, error) {
	pcm, err := audioconv.ConvertFileToPCM16k(ctx, path, audioconv.Options{})
	if err != nil {
		return nil, &DeviceError{Device: path, Err: err}
	}
	if len(pcm) == 0 {
		return nil, &DeviceError{Device: path, Err: fmt.Errorf("no audio")}
	}
	if blockFrames <= 0 {
		blockFrames = 8192
	}

	fs := &FileSource{
		Feed: NewFeed(Format{Rate: audioconv.SampleRate, Channels: 1}, 8),
		path: path,
	}

	samples := audioconv.Float32ToInt16(pcm)
	go func() {
		defer fs.Feed.Close()
		for off := 0; off < len(samples); off += blockFrames {
			end := min(off+blockFrames, len(samples))
			if !fs.Send(samples[off:end]) {
				return
			}
		}
	}()
	return fs, nil
}

func (fs *FileSource) Path() string { return fs.path }
