package config

const (
	defaultLibraryDir = "~/Music/library"
	defaultDataDir    = "~/.local/share/crate"
	defaultLogDir     = "~/.local/share/crate/logs"
	defaultTrashDir   = "~/.local/share/crate/trash"

	defaultTemplate            = "{Genero}/{Año}/{Artista}/{Álbum}/{TrackNo - Título}.{ext}"
	defaultCompilationTemplate = "{Genero}/{Año}/Various Artists/{Álbum}/{TrackNo - Artista - Título}.{ext}"
	defaultSubstituteChar      = "_"

	defaultDurationTolerance  = 1.0
	defaultHashWorkers        = 4
	defaultOnDuplicate        = "trash"
	defaultFreeSpaceMarginMiB = 256
	defaultRetryTransient     = 3

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			TrashDir:   defaultTrashDir,
		},
		Templates: Templates{
			Default:               defaultTemplate,
			Compilation:           defaultCompilationTemplate,
			SubstituteChar:        defaultSubstituteChar,
			SanitizeForbidden:     true,
			StripPromoParens:      false,
			FallbackToAlbumArtist: true,
			CompilationDetection:  false,
		},
		Duplicates: Duplicates{
			DurationToleranceSeconds: defaultDurationTolerance,
			UseContentHash:           true,
			HashWorkers:              defaultHashWorkers,
			OnDuplicate:              defaultOnDuplicate,
		},
		Organize: Organize{
			FreeSpaceMarginMiB: defaultFreeSpaceMarginMiB,
			RetryTransient:     defaultRetryTransient,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
