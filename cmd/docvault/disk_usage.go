package main

import (
	"fmt"
	"syscall"
)

// getDiskUsage возвращает ёмкость файловой системы, на которой лежит
// хранилище: total, used и available в байтах. available — место,
// доступное непривилегированному процессу, поэтому used учитывает
// и зарезервированные блоки.
func getDiskUsage(vaultDir string) (total, used, available int64, err error) {
	var st syscall.Statfs_t
	if err = syscall.Statfs(vaultDir, &st); err != nil {
		return 0, 0, 0, fmt.Errorf("ёмкость хранилища %s: %w", vaultDir, err)
	}

	block := int64(st.Bsize)
	total = int64(st.Blocks) * block
	available = int64(st.Bavail) * block
	return total, max(total-available, 0), available, nil
}
