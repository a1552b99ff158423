// Package idgen 基于雪花算法生成请求 ID.
package idgen

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

var node atomic.Pointer[snowflake.Node]

// Init 以指定机器号初始化节点，未调用时 GenID 使用 0 号节点.
func Init(machineID int64) error {
	n, err := snowflake.NewNode(machineID)
	if err != nil {
		return err
	}
	node.Store(n)
	slog.Info("snowflake generator initialized", "machine_id", machineID)
	return nil
}

// GenID 生成一个新的 ID.
func GenID() int64 {
	n := node.Load()
	if n == nil {
		// 0 号节点总是合法.
		fresh, _ := snowflake.NewNode(0)
		if node.CompareAndSwap(nil, fresh) {
			n = fresh
		} else {
			n = node.Load()
		}
	}
	return n.Generate().Int64()
}

// GenIDString 以十进制字符串返回新的 ID.
func GenIDString() string {
	return strconv.FormatInt(GenID(), 10)
}
