package scanner

import (
	"fmt"
	"slices"
)

// SourceOption names the capture file whose frequency is sent to the scanner
// through its scan file. It never appears on the scanner's command line.
const SourceOption = "file_path_tx"

// Option describes one command line option of the remote scanner program.
type Option struct {
	Name    string   // flag name on the remote command line, without the dash
	CLI     string   // flag name on our own command line
	Kind    Kind     // value type, KindBool for switches
	Usage   string   // help text
	Choices []string // allowed values in string form, empty for any
}

// Options is the remote scanner's option set in the order the scanner
// documents them. Command lines are generated in this order.
var Options = []Option{
	{Name: "file", CLI: "file", Kind: KindString, Usage: "Read the samples from the file S"},
	{Name: "fscanfile", CLI: "fscanfile", Kind: KindString, Usage: "Scan frequencies listed in a text file [KHz]"},
	{Name: "nslots", CLI: "nslots", Kind: KindInt, Usage: "Read nslots slots when processing"},
	{Name: "syscode", CLI: "syscode", Kind: KindString, Usage: "System code"},
	{Name: "basesmp", CLI: "basesmp", Kind: KindInt, Usage: "Base sample to read from (in file mode)"},
	{Name: "v", CLI: "verbose-level", Kind: KindString, Usage: "Verbose level: none, trace, debug, deep",
		Choices: []string{"none", "trace", "debug", "deep"}},
	{Name: "rxgain", CLI: "rxgain", Kind: KindFloat, Usage: "Set radio gain"},
	{Name: "radioiters", CLI: "radioiters", Kind: KindInt, Usage: "Set number of radio iterations"},
	{Name: "occdetthresh", CLI: "occdetthresh", Kind: KindFloat, Usage: "Occupancy detection SNR threshold"},
	{Name: "lgtdetthresh", CLI: "lgtdetthresh", Kind: KindFloat, Usage: "Correlation detection SNR threshold"},
	{Name: "pwrmeter", CLI: "pwrmeter", Kind: KindBool, Usage: "Calculate the average sample power"},
	{Name: "interpmode", CLI: "interpmode", Kind: KindInt, Usage: "Interpolation complexity: 5, 7 or 17 (default 7)",
		Choices: []string{"5", "7", "17"}},
	{Name: "corrplotena", CLI: "corrplotena", Kind: KindBool, Usage: "Enable correlation plot"},
	{Name: "saveflags", CLI: "saveflags", Kind: KindInt, Usage: "Bitfield for saving flags"},
	{Name: "detmode", CLI: "detmode", Kind: KindString, Usage: "Detector mode string"},
	{Name: "clipth", CLI: "clipth", Kind: KindFloat, Usage: "Clipping threshold, 0 for no clipping"},
	{Name: "smpdumpsize", CLI: "smpdumpsize", Kind: KindInt, Usage: "Samples to dump after flushing the buffer"},
	{Name: "gryfforcerec", CLI: "gryfforcerec", Kind: KindBool, Usage: "Force recording of all gryfon data"},
	{Name: "gryfpacketusec", CLI: "gryfpacketusec", Kind: KindInt, Usage: "Assumed gryfon packet duration [usec]"},
	{Name: "gryfdwellusec", CLI: "gryfdwellusec", Kind: KindInt, Usage: "Gryfon dwell on frequency time [usec]"},
	{Name: "gryfdeletefiles", CLI: "gryfdeletefiles", Kind: KindInt, Usage: "Delete gryfon files after each radio iteration, 0/1",
		Choices: []string{"0", "1"}},
	{Name: "smpdumptofile", CLI: "smpdumptofile", Kind: KindInt, Usage: "Dump samples to file, number of samples"},
	{Name: "detdumptofile", CLI: "detdumptofile", Kind: KindString, Usage: "Dump detection scores to file"},
}

// Lookup returns the catalogue entry for a remote option name.
func Lookup(name string) (Option, bool) {
	i := slices.IndexFunc(Options, func(o Option) bool { return o.Name == name })
	if i < 0 {
		return Option{}, false
	}
	return Options[i], true
}

// Validate checks an option set against the catalogue: names must be known,
// kinds must match and constrained options must hold one of their choices.
func Validate(opts *OptionSet) error {
	for _, name := range opts.Names() {
		v := opts.Get(name)
		if !v.Present() {
			continue
		}

		o, ok := Lookup(name)
		if !ok {
			return fmt.Errorf("scanner: unknown option %q", name)
		}
		if v.Kind() != o.Kind {
			return fmt.Errorf("scanner: option %q expects %s, %s given", name, o.Kind, v.Kind())
		}
		if len(o.Choices) > 0 && !slices.Contains(o.Choices, v.String()) {
			return fmt.Errorf("scanner: invalid value %q for option %q, must be one of %v", v.String(), name, o.Choices)
		}
	}
	return nil
}
