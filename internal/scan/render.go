package scan

import (
	"fmt"
	"io"
)

// Render writes a human-readable report. Complete sets print a single line;
// verbose also lists their parts. Degraded sets always show what to rename,
// where to fetch fixable content, and what is missing.
func Render(w io.Writer, r *Report, verbose bool) error {
	totals := r.Totals()
	fmt.Fprintf(w, "Policy: %s\n", r.Policy)
	fmt.Fprintf(w, "Sets: %d (%d complete, %d fixable, %d incomplete, %d errored)\n\n",
		len(r.Sets), totals[SetComplete], totals[SetFixable], totals[SetIncomplete], totals[SetErrored])

	for i := range r.Sets {
		if err := renderSet(w, &r.Sets[i], verbose); err != nil {
			return err
		}
	}

	if len(r.UnknownFiles) > 0 {
		fmt.Fprintln(w, "Unknown files:")
		for _, file := range r.UnknownFiles {
			fmt.Fprintf(w, "    - %s\n", file)
		}
	}
	return nil
}

func renderSet(w io.Writer, set *SetReport, verbose bool) error {
	fmt.Fprintf(w, "%s [%s]\n", set.Machine, set.Status)

	if set.Status == SetErrored {
		for _, msg := range set.Errors {
			fmt.Fprintf(w, "    ! %s\n", msg)
		}
		fmt.Fprintln(w)
		return nil
	}

	var have, rename, fixable, missing, duplicate, unknown []PartResult
	for _, part := range set.Parts {
		switch part.Status {
		case StatusOK:
			have = append(have, part)
		case StatusMisnamed:
			rename = append(rename, part)
		case StatusFixable:
			fixable = append(fixable, part)
		case StatusMissing:
			missing = append(missing, part)
		case StatusDuplicateUnresolved:
			duplicate = append(duplicate, part)
		case StatusUnknown:
			unknown = append(unknown, part)
		}
	}

	if verbose && len(have) > 0 {
		fmt.Fprintln(w, "  Roms:")
		for _, part := range have {
			fmt.Fprintf(w, "    - %s\n", part.Part.Name)
		}
	}
	if len(rename) > 0 {
		fmt.Fprintln(w, "  To Rename:")
		for _, part := range rename {
			fmt.Fprintf(w, "    - %s => %s\n", part.RenameFrom, part.Part.Name)
		}
	}
	if len(fixable) > 0 {
		fmt.Fprintln(w, "  Fixable:")
		for _, part := range fixable {
			fmt.Fprintf(w, "    - %s <= %s\n", part.Part.Name, part.FixFrom)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintln(w, "  Missing:")
		for _, part := range missing {
			if part.Cause != "" {
				fmt.Fprintf(w, "    - %s (%s)\n", part.Part.Name, part.Cause)
			} else {
				fmt.Fprintf(w, "    - %s\n", part.Part.Name)
			}
		}
	}
	if len(duplicate) > 0 {
		fmt.Fprintln(w, "  Duplicate content unresolved:")
		for _, part := range duplicate {
			fmt.Fprintf(w, "    - %s\n", part.Part.Name)
		}
	}
	if verbose && len(unknown) > 0 {
		fmt.Fprintln(w, "  No dump known:")
		for _, part := range unknown {
			fmt.Fprintf(w, "    - %s\n", part.Part.Name)
		}
	}

	var missingSamples []SampleResult
	for _, sample := range set.Samples {
		if !sample.Present {
			missingSamples = append(missingSamples, sample)
		}
	}
	if len(missingSamples) > 0 {
		fmt.Fprintln(w, "  Missing samples:")
		for _, sample := range missingSamples {
			fmt.Fprintf(w, "    - %s (expected in %s)\n", sample.Name, sample.Where)
		}
	}

	if len(set.Unneeded) > 0 {
		fmt.Fprintln(w, "  Unneeded:")
		for _, file := range set.Unneeded {
			switch {
			case file.Unreadable != "":
				fmt.Fprintf(w, "    - %s (unreadable: %s)\n", file.Name, file.Unreadable)
			case len(file.Misplaced) > 0:
				fmt.Fprintf(w, "    - %s (belongs to %s)\n", file.Name, file.Misplaced[0].Machine)
			default:
				fmt.Fprintf(w, "    - %s\n", file.Name)
			}
		}
	}

	for _, msg := range set.Errors {
		fmt.Fprintf(w, "    ! %s\n", msg)
	}

	fmt.Fprintln(w)
	return nil
}
