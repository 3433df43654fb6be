package portal

import (
	"fmt"

	"gradesync-backend/internal/portal/gradeparse"
)

const (
	SourceTamo            = "tamo"
	SourceManoDienynas    = "manodienynas"
	SourceSvietimoCentras = "svietimocentras"
)

var (
	usernameFields = []string{"UserName", "username", "Login", "login", "vartotojas", "prisijungimoVardas"}
	passwordFields = []string{"Password", "password", "slaptazodis"}
	failureMarkers = []string{"klaida", "neteising", "nepavyko", "error", "incorrect", "invalid"}
)

var Tamo = Config{
	Source:             SourceTamo,
	DisplayName:        "Tamo",
	BaseURLs:           []string{"https://dienynas.tamo.lt", "https://www.tamo.lt"},
	LoginPath:          "/Prisijungimas/Login",
	PostLoginFragments: []string{"/DienynasUnified", "/Pradzia", "/Dienynas", "/Home"},
	UsernameFields:     usernameFields,
	PasswordFields:     passwordFields,
	FailureMarkers:     failureMarkers,
	GradePaths: []string{
		"/DienynasUnified/Pazymiai",
		"/Pazymiai",
		"/Dienynas/Pazymiai",
	},
	SchedulePaths: []string{"/Tvarkarastis", "/DienynasUnified/Tvarkarastis"},
	HomeworkPaths: []string{"/NamuDarbai", "/DienynasUnified/NamuDarbai"},
	Cascade:       gradeparse.DefaultCascade,
}

var ManoDienynas = Config{
	Source:             SourceManoDienynas,
	DisplayName:        "ManoDienynas",
	BaseURLs:           []string{"https://www.manodienynas.lt", "https://manodienynas.lt"},
	LoginPath:          "/1/lt/public/public/login",
	PostLoginFragments: []string{"/1/lt/page/", "/pradzia", "/dashboard"},
	UsernameFields:     usernameFields,
	PasswordFields:     passwordFields,
	FailureMarkers:     failureMarkers,
	GradePaths: []string{
		"/1/lt/page/marks_pupil/marks",
		"/1/lt/page/marks",
		"/pazymiai",
	},
	SchedulePaths: []string{"/1/lt/page/schedule/view", "/tvarkarastis"},
	HomeworkPaths: []string{"/1/lt/page/homework/view", "/namu-darbai"},
	Cascade:       gradeparse.DefaultCascade,
}

var SvietimoCentras = Config{
	Source:      SourceSvietimoCentras,
	DisplayName: "Švietimo centras",
	Deprecated:  true,
	Migration:   "svietimocentras is no longer supported, save your credentials for tamo or manodienynas instead",
}

var registry = map[string]Config{
	SourceTamo:            Tamo,
	SourceManoDienynas:    ManoDienynas,
	SourceSvietimoCentras: SvietimoCentras,
}

// Active lists the supported portals in a stable order.
func Active() []Config {
	return []Config{Tamo, ManoDienynas}
}

func ActiveSources() []string {
	active := Active()
	out := make([]string, len(active))
	for i, c := range active {
		out[i] = c.Source
	}
	return out
}

// Lookup returns the config of a supported source. Deprecated sources yield
// an error wrapping ErrDeprecatedSource carrying the migration guidance.
func Lookup(source string) (Config, error) {
	cfg, ok := registry[source]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if cfg.Deprecated {
		return Config{}, fmt.Errorf("%w: %s", ErrDeprecatedSource, cfg.Migration)
	}
	return cfg, nil
}

// IsDeprecated reports whether source names a portal that used to be
// supported.
func IsDeprecated(source string) (Config, bool) {
	cfg, ok := registry[source]
	return cfg, ok && cfg.Deprecated
}
