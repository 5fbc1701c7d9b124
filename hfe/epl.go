package hfe

import "fmt"

// Read a file in EPL (EPLCopy) format and return a Disk structure.
func ReadEPL(filename string) (*Disk, error) {
	return nil, fmt.Errorf("EPL format not yet implemented")
}

// Write a Disk structure to an EPL format file.
func WriteEPL(filename string, disk *Disk) error {
	return fmt.Errorf("EPL format not yet implemented")
}
