package xtrigger

// 常用 cron 表达式（6 字段，秒在前）。
const (
	EverySecond        = "* * * * * *"
	Every5Seconds      = "*/5 * * * * *"
	Every10Seconds     = "*/10 * * * * *"
	Every30Seconds     = "*/30 * * * * *"
	EveryMinute        = "0 * * * * *"
	Every5Minutes      = "0 */5 * * * *"
	Every10Minutes     = "0 */10 * * * *"
	Every30Minutes     = "0 */30 * * * *"
	EveryHour          = "0 0 * * * *"
	EveryDayAtMidnight = "0 0 0 * * *"
	EveryWeekday       = "0 0 0 * * 1-5"
	EveryWeekend       = "0 0 0 * * 6,0"
	EveryMonthFirstDay = "0 0 0 1 * *"
)
