package callback

import "context"

// StaticOptions serves a fixed option list, normally from
// forms.callback.options.
type StaticOptions []Option

// Options returns a copy of the list.
func (s StaticOptions) Options(context.Context) []Option {
	return append([]Option(nil), s...)
}

// Values returns just the option values, in order.
func Values(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}
