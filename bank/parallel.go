package bank

import "golang.org/x/sync/errgroup"

// EncodeAll runs encode once per chunk and collects results in chunk
// order. When parallel is true, chunks run concurrently via errgroup —
// safe here because each chunk's encode function must be given a
// deterministic, bank-index-derived seed so the result is identical
// regardless of goroutine scheduling. Use this only where bank
// boundaries are already fixed before encoding starts (e.g. VQ's
// geometry is a pure function of vec_size and sample count); codecs
// whose boundaries are data-dependent (DeltaLZ's binary-search fill)
// must determine them sequentially instead.
func EncodeAll(chunks [][]byte, parallel bool, encode func(bankIndex int, chunk []byte) ([]byte, error)) ([][]byte, error) {
	out := make([][]byte, len(chunks))
	if !parallel {
		for i, c := range chunks {
			r, err := encode(i, c)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	var g errgroup.Group
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			r, err := encode(i, c)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
