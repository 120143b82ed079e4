package matching

// Ratio computes a character-level similarity in [0, 1] between two strings:
// twice the total length of the longest common matching blocks divided by the
// combined length. Order-sensitive and symmetric; 1 means identical, 0 means
// nothing in common.
func Ratio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar)+len(br) == 0 {
		return 1
	}

	b2j := make(map[rune][]int, len(br))
	for j, r := range br {
		b2j[r] = append(b2j[r], j)
	}

	matched := matchingSize(ar, br, 0, len(ar), 0, len(br), b2j)
	return 2 * float64(matched) / float64(len(ar)+len(br))
}

// matchingSize sums the sizes of all matching blocks by recursively splitting
// around the longest match of each region.
func matchingSize(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) int {
	i, j, size := longestMatch(a, alo, ahi, blo, bhi, b2j)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingSize(a, b, alo, i, blo, j, b2j)
	total += matchingSize(a, b, i+size, ahi, j+size, bhi, b2j)
	return total
}

// longestMatch finds the longest block a[i:i+size] == b[j:j+size] within the
// given region, preferring the earliest i and then the earliest j on ties.
func longestMatch(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo

	// j2len[j] is the length of the match ending at a[i-1], b[j-1] from the
	// previous outer iteration.
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return besti, bestj, bestsize
}
