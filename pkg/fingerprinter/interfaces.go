package fingerprinter

import "context"

type Service interface {
	// LoadDirectory clears the index and ingests every matching file in dir.
	// Events arrive one per file; the channel closes when the load is done.
	LoadDirectory(ctx context.Context, dir string) (<-chan Event, error)
	AddFile(ctx context.Context, path string) (Song, error)
	AddPCM(name string, pcm []byte) (Song, error)

	Fingerprint(pcm []byte) []Code
	Recognize(pcm []byte) ([]Match, error)
	RecognizeFile(ctx context.Context, path string) ([]Match, error)
	RecognizeCodes(codes []Code) ([]Match, error)

	Songs() []Song
	Stats() Stats
	Clear()

	Save(ctx context.Context) (SnapshotInfo, error)
	Restore(ctx context.Context) (SnapshotInfo, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
