package config

// Configuration keys. Each key is also exposed as MOZ_<KEY> with dots replaced by underscores.
const (
	AudioBackend     = "audio.backend"
	AudioBufferMs    = "audio.buffer_ms"
	AudioUnderrunMs  = "audio.underrun_wait_ms"
	AudioPipeOpenMs  = "audio.pipe_open_ms"
	CacheDir         = "cache.dir"
	CacheContainer   = "cache.container"
	StreamFetcher    = "stream.fetcher"
	StreamTranscoder = "stream.transcoder"
	StreamFormat     = "stream.format"
	StreamCodec      = "stream.codec"
	StreamBitrate    = "stream.bitrate"
	StreamSite       = "stream.site"
	StreamPrerollMs  = "stream.preroll_ms"
	StreamSettleMs   = "stream.settle_ms"
	StreamGraceMs    = "stream.grace_ms"
	StreamSampleRate = "stream.sample_rate"
	SearchLimit      = "search.limit"
	SearchCacheHours = "search.cache_hours"
	LibraryDir       = "library.dir"
	LibraryWorkers   = "library.workers"
	LogsWrite        = "logs.write"
	LogsLevel        = "logs.level"
	LogsJSON         = "logs.json"
	UITickMs         = "ui.tick_ms"
)
