package configutil

// SetDefault sets a config default, implemented by *viper.Viper.
type SetDefault interface {
	SetDefault(key string, value any)
}

// SetDefaultFunc adapts a func to SetDefault, e.g. to rewrite keys
// before passing them on. A nil func drops all defaults.
type SetDefaultFunc func(key string, value any)

// SetDefault implements SetDefault.
func (f SetDefaultFunc) SetDefault(key string, value any) {
	if f != nil {
		f(key, value)
	}
}
