package explain

import (
	"fmt"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// SaveImportanceMatrix writes an importance matrix to path in NumPy
// .npy format, one artifact per graph.
func SaveImportanceMatrix(path string, m *mat.Dense) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := npyio.Write(file, m); err != nil {
		return fmt.Errorf("failed to write npy array: %w", err)
	}
	return nil
}
