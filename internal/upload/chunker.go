// Package upload moves user-supplied source material to the automation
// webhook and to object storage, and reports progress while doing so.
package upload

import "fmt"

// Chunk is one fixed-size slice of a file, tagged so the receiving
// workflow can reassemble the payload out of order.
type Chunk struct {
	FileID string
	Index  int
	Total  int
	Data   []byte
}

// NumChunks returns ceil(size/chunkSize).
func NumChunks(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// Split cuts the payload into chunks of at most chunkSize bytes. The
// chunk size comes from configuration; it is the only place the value
// is read, so both upload strategies agree on it.
func Split(fileID string, data []byte, chunkSize int64) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	total := NumChunks(int64(len(data)), chunkSize)
	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		chunks = append(chunks, Chunk{
			FileID: fileID,
			Index:  i,
			Total:  total,
			Data:   data[start:end],
		})
	}
	return chunks, nil
}
