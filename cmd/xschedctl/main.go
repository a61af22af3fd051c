// xschedctl 按配置文件运行定时任务，并提供表达式预览与配置校验。
//
// 用法:
//
//	xschedctl <命令> [命令参数]
//
// 命令:
//
//	run        按配置运行任务，直到收到终止信号
//	next       预览 cron 表达式接下来的触发时刻
//	validate   校验配置文件
//	version    显示版本信息
//
// 配置中的任务通过 command 字段声明要执行的外部命令:
//
//	jobs:
//	  - name: cleanup
//	    kind: cron
//	    pattern: "0 0 3 * * *"
//	    command: ["/usr/local/bin/cleanup", "--days", "7"]
//
// 退出码:
//
//	0: 成功（run 命令: 收到信号后正常退出）
//	1: 执行失败
//	2: 参数错误（缺少参数、非法表达式、未知命令等）
//
// 示例:
//
//	xschedctl run -c schedule.yaml --watch
//	xschedctl next "0 30 9 * * 1-5" --tz Asia/Shanghai -n 3
//	xschedctl validate -c schedule.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// createApp 创建 CLI 应用，命令输出写入 stdout。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xschedctl",
		Usage:     "定时任务运行与调试工具",
		Version:   versionString(),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			createRunCommand(),
			createNextCommand(stdout),
			createValidateCommand(stdout),
			createVersionCommand(stdout),
		},
		// 退出码由 run 统一映射，禁止 urfave/cli 直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := createApp(stdout, stderr).Run(ctx, args); err != nil {
		return exitCode(err, stderr)
	}
	return 0
}

func exitCode(err error, stderr io.Writer) int {
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}
