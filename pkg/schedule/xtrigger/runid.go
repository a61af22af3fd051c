package xtrigger

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/sony/sonyflake/v2"
)

// RunIDs 单次执行 ID 生成器，基于 sonyflake，单进程内单调递增。
type RunIDs struct {
	sf *sonyflake.Sonyflake
}

// NewRunIDs 创建生成器，机器 ID 由 [DefaultMachineID] 推导。
func NewRunIDs() (*RunIDs, error) {
	return NewRunIDsWithMachine(DefaultMachineID())
}

// NewRunIDsWithMachine 使用指定机器 ID 创建生成器。
func NewRunIDsWithMachine(machineID uint16) (*RunIDs, error) {
	sf, err := sonyflake.New(sonyflake.Settings{
		MachineID: func() (int, error) { return int(machineID), nil },
	})
	if err != nil {
		return nil, fmt.Errorf("xtrigger: create run id generator: %w", err)
	}
	return &RunIDs{sf: sf}, nil
}

// Next 生成下一个 ID。
func (r *RunIDs) Next() (int64, error) {
	return r.sf.NextID()
}

// DefaultMachineID 由主机名与进程号哈希得到 16 位机器 ID。
func DefaultMachineID() uint16 {
	host, _ := os.Hostname()
	sum := xxhash.Sum64String(host + "/" + strconv.Itoa(os.Getpid()))
	return uint16(sum ^ sum>>16 ^ sum>>32 ^ sum>>48)
}
