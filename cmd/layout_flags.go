package cmd

// addLayoutFlags adds the various flags for the layout command
func addLayoutFlags() {
	// Config, build and store flags
	addProjectFlags(layoutCmd)

	// Output format
	layoutCmd.Flags().Bool("json", false, "print the storage layout as JSON")
}
