package utils

import (
	"sync"
)

// ParallelMap 用最多 workers 个协程并发处理 input，结果按输入顺序返回。
// 元素少于 2 或 workers<=1 时直接串行执行。
func ParallelMap[T any, R any](input []T, workers int, fn func(T) R) []R {
	n := len(input)
	result := make([]R, n)
	if n == 0 {
		return result
	}
	if n == 1 || workers <= 1 {
		for i, v := range input {
			result[i] = fn(v)
		}
		return result
	}
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	indexCh := make(chan int, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				result[i] = fn(input[i])
			}
		}()
	}
	for i := range input {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()
	return result
}
