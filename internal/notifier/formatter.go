package notifier

import (
	"fmt"
	"html"
	"strings"

	"IndexDeviation/internal/batch"
	"IndexDeviation/internal/model"
)

// FormatRunReport formats a batch summary into a Telegram message.
func FormatRunReport(sum *batch.Summary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MA60 偏离度</b> | %s\n", sum.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("成功 %d / 失败 %d\n\n", sum.Succeeded(), sum.Failed()))

	for _, r := range sum.Results {
		name := html.EscapeString(r.Spec.DisplayName)
		if r.Err != nil {
			b.WriteString(fmt.Sprintf("❌ %s: 数据获取或计算失败\n", name))
			continue
		}
		if r.Series == nil || r.Series.Len() == 0 {
			continue
		}
		last := r.Series.Latest()
		dev := "数据不足"
		if last.Deviation.Valid {
			dev = last.Deviation.Decimal.Shift(2).StringFixed(2) + "%"
		}
		b.WriteString(fmt.Sprintf("• %s %s 收盘 %s 偏离 <b>%s</b>", name,
			last.Date.Format(model.DateLayout), last.Close.StringFixed(2), dev))
		if r.Range != nil {
			b.WriteString(fmt.Sprintf(" (区间分位 %s%%)", r.Range.Position.Shift(2).StringFixed(0)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatIndexList lists the indices a run covers.
func FormatIndexList(specs []model.IndexSpec) string {
	var b strings.Builder
	b.WriteString("📋 <b>指数列表</b>\n\n")
	for _, s := range specs {
		b.WriteString(fmt.Sprintf("• %s (%s)\n", html.EscapeString(s.DisplayName), s.SymbolCode))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "可用命令:\n• /run 立即计算\n• /last 最近一次结果\n• /indices 指数列表"
}
