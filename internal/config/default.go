package config

import (
	"sort"

	"github.com/jscyril/moz/internal/where"
)

// Field is a registered configuration key with its default value
type Field struct {
	Key         string
	Value       any
	Description string
}

// Default holds every registered field by key
var Default = make(map[string]Field)

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
	}

	register(AudioBackend, "speaker", "Audio output: speaker (16-bit device), oto (float32 device) or null")
	register(AudioBufferMs, 100, "Output buffer length in milliseconds")
	register(AudioUnderrunMs, 1000, "How long a stream read waits for the producer before the stream is treated as ended")
	register(AudioPipeOpenMs, 10000, "How long to wait for a stream producer to attach to its pipe")
	register(CacheDir, where.DefaultCache(), "Directory holding cached streams")
	register(CacheContainer, "mp3", "Container written by the transcoder and used as cache file extension")
	register(StreamFetcher, "yt-dlp", "Program that downloads the best audio of a video to stdout")
	register(StreamTranscoder, "ffmpeg", "Program that transcodes the fetched audio")
	register(StreamFormat, "bestaudio[ext=m4a]/bestaudio/best", "Format selector passed to the fetcher")
	register(StreamCodec, "libmp3lame", "Audio codec used by the transcoder")
	register(StreamBitrate, "192k", "Transcoder bitrate")
	register(StreamSite, "youtube.com", "Host used to build watch URLs")
	register(StreamPrerollMs, 2000, "Delay between starting the producers and starting playback")
	register(StreamSettleMs, 200, "Delay after stopping a previous producer before starting a new one")
	register(StreamGraceMs, 500, "How long producers get to exit after SIGTERM")
	register(StreamSampleRate, 0, "Resample streams to this rate, 0 keeps the source rate")
	register(SearchLimit, 5, "Number of search results to show")
	register(SearchCacheHours, 24, "How long search results are cached")
	register(LibraryDir, "", "Music directory opened by the offline mode")
	register(LibraryWorkers, 4, "Workers reading tags from the music directory")
	register(LogsWrite, false, "Write logs")
	register(LogsLevel, "info", "Log level: panic, fatal, error, warn, info, debug, trace")
	register(LogsJSON, false, "Use json format for logs")
	register(UITickMs, 100, "Interval between progress refreshes")
}

// Keys returns the registered keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(Default))
	for k := range Default {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
