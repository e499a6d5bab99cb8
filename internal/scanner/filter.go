package scanner

// Filter turns a sparse option set into the minimal command line for the
// remote scanner. Options are visited in insertion order. Each present option
// yields "-name"; switches stop there, every other value adds one token with
// its string form. Absent options leave no trace, the remote program applies
// its own defaults for them.
//
// Filter does not validate names or values, see Validate.
func Filter(opts *OptionSet) []string {
	var args []string
	for _, name := range opts.Names() {
		v := opts.Get(name)
		if !v.Present() {
			continue
		}

		args = append(args, "-"+name)
		if v.IsSwitch() {
			continue
		}
		args = append(args, v.String())
	}
	return args
}
