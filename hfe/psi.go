package hfe

import "fmt"

// Read a file in PSI (PCE Sector Image) format and return a Disk structure.
func ReadPSI(filename string) (*Disk, error) {
	return nil, fmt.Errorf("PSI format not yet implemented")
}

// Write a Disk structure to a PSI format file.
func WritePSI(filename string, disk *Disk) error {
	return fmt.Errorf("PSI format not yet implemented")
}
