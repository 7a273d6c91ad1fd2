package dashboard

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"
	"time"
)

// Dark theme palette.
const (
	backgroundColor = "#111111"
	gridColor       = "#333333"
	textColor       = "#dddddd"
	axisLabelColor  = "#aaaaaa"
)

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 50
	marginBottom = 50
	xTickCount   = 5
	yTickCount   = 5
)

// Point is one sample of a series.
type Point struct {
	T time.Time
	V float64
}

// Series is a line with markers drawn in a single color.
type Series struct {
	Name   string
	Color  string
	Points []Point
}

// Tick is a labeled position on the y axis.
type Tick struct {
	Value float64
	Label string
}

// LineChart is a time-series chart rendered to SVG.
type LineChart struct {
	// ID prefixes element ids so several charts can share one HTML document.
	ID     string
	Title  string
	XTitle string
	YTitle string
	Width  int
	Height int
	Series []Series
	// YTicks replaces the automatic y axis ticks and range when set.
	YTicks []Tick
}

// SVG renders the chart.
func (c LineChart) SVG() string {
	width, height := c.size()
	plotW := float64(width - marginLeft - marginRight)
	plotH := float64(height - marginTop - marginBottom)

	tMin, tMax := c.timeRange()
	yMin, yMax := c.valueRange()
	yTicks := c.yTicks(yMin, yMax)

	timeToX := func(t time.Time) float64 {
		span := tMax.Sub(tMin)
		return marginLeft + float64(t.Sub(tMin))/float64(span)*plotW
	}
	valueToY := func(v float64) float64 {
		return marginTop + plotH - (v-yMin)/(yMax-yMin)*plotH
	}

	var buf bytes.Buffer
	writeHeader(&buf, width, height)

	// Reusable marker shape
	fmt.Fprintf(&buf, "<defs><circle id=\"%s-dot\" r=\"3\"/></defs>\n", c.ID)

	writeTitle(&buf, c.Title)

	// Grid lines and tick labels
	buf.WriteString("<g stroke=\"" + gridColor + "\" stroke-width=\"1\">\n")
	for _, tick := range yTicks {
		y := valueToY(tick.Value)
		fmt.Fprintf(&buf, "<line x1=\"%d\" y1=\"%.1f\" x2=\"%d\" y2=\"%.1f\"/>\n", marginLeft, y, width-marginRight, y)
	}
	xTicks := timeTicks(tMin, tMax)
	for _, t := range xTicks {
		x := timeToX(t)
		fmt.Fprintf(&buf, "<line x1=\"%.1f\" y1=\"%d\" x2=\"%.1f\" y2=\"%d\"/>\n", x, marginTop, x, height-marginBottom)
	}
	buf.WriteString("</g>\n")

	fmt.Fprintf(&buf, "<g fill=\"%s\" font-family=\"sans-serif\" font-size=\"11\">\n", axisLabelColor)
	for _, tick := range yTicks {
		fmt.Fprintf(&buf, "<text x=\"%d\" y=\"%.1f\" text-anchor=\"end\" dominant-baseline=\"middle\">%s</text>\n",
			marginLeft-6, valueToY(tick.Value), html.EscapeString(tick.Label))
	}
	for _, t := range xTicks {
		fmt.Fprintf(&buf, "<text x=\"%.1f\" y=\"%d\" text-anchor=\"middle\">%s</text>\n",
			timeToX(t), height-marginBottom+16, t.Format("15:04:05"))
	}
	buf.WriteString("</g>\n")

	writeAxisTitles(&buf, width, height, c.XTitle, c.YTitle)

	// Series: one polyline plus markers each
	for _, s := range c.Series {
		if len(s.Points) == 0 {
			continue
		}
		buf.WriteString("<polyline fill=\"none\" stroke-width=\"2\" stroke=\"" + html.EscapeString(s.Color) + "\" points=\"")
		for i, p := range s.Points {
			if i > 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(&buf, "%.1f,%.1f", timeToX(p.T), valueToY(p.V))
		}
		buf.WriteString("\"/>\n")

		fmt.Fprintf(&buf, "<g fill=\"%s\">\n", html.EscapeString(s.Color))
		for _, p := range s.Points {
			fmt.Fprintf(&buf, "<use href=\"#%s-dot\" x=\"%.1f\" y=\"%.1f\"/>\n", c.ID, timeToX(p.T), valueToY(p.V))
		}
		buf.WriteString("</g>\n")
	}

	c.writeLegend(&buf, width)

	buf.WriteString("</svg>")
	return buf.String()
}

// PlaceholderSVG renders an empty chart frame carrying a message.
func PlaceholderSVG(width, height int, message string) string {
	var buf bytes.Buffer
	writeHeader(&buf, width, height)
	fmt.Fprintf(&buf, "<text x=\"%d\" y=\"%d\" fill=\"%s\" font-family=\"sans-serif\" font-size=\"16\" text-anchor=\"middle\">%s</text>\n",
		width/2, height/2, axisLabelColor, html.EscapeString(message))
	buf.WriteString("</svg>")
	return buf.String()
}

func writeHeader(buf *bytes.Buffer, width, height int) {
	fmt.Fprintf(buf, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" width=\"100%%\" preserveAspectRatio=\"xMidYMid meet\">\n", width, height)
	fmt.Fprintf(buf, "<rect width=\"%d\" height=\"%d\" fill=\"%s\"/>\n", width, height, backgroundColor)
}

func writeTitle(buf *bytes.Buffer, title string) {
	if title == "" {
		return
	}
	fmt.Fprintf(buf, "<text x=\"%d\" y=\"24\" fill=\"%s\" font-family=\"sans-serif\" font-size=\"16\">%s</text>\n",
		marginLeft, textColor, html.EscapeString(title))
}

func writeAxisTitles(buf *bytes.Buffer, width, height int, xTitle, yTitle string) {
	if xTitle != "" {
		fmt.Fprintf(buf, "<text x=\"%d\" y=\"%d\" fill=\"%s\" font-family=\"sans-serif\" font-size=\"12\" text-anchor=\"middle\">%s</text>\n",
			marginLeft+(width-marginLeft-marginRight)/2, height-10, textColor, html.EscapeString(xTitle))
	}
	if yTitle != "" {
		cy := marginTop + (height-marginTop-marginBottom)/2
		fmt.Fprintf(buf, "<text x=\"14\" y=\"%d\" fill=\"%s\" font-family=\"sans-serif\" font-size=\"12\" text-anchor=\"middle\" transform=\"rotate(-90 14 %d)\">%s</text>\n",
			cy, textColor, cy, html.EscapeString(yTitle))
	}
}

func (c LineChart) writeLegend(buf *bytes.Buffer, width int) {
	if len(c.Series) < 2 {
		return
	}
	x := width - marginRight - 150*len(c.Series)
	for _, s := range c.Series {
		fmt.Fprintf(buf, "<rect x=\"%d\" y=\"32\" width=\"12\" height=\"3\" fill=\"%s\"/>\n", x, html.EscapeString(s.Color))
		fmt.Fprintf(buf, "<text x=\"%d\" y=\"37\" fill=\"%s\" font-family=\"sans-serif\" font-size=\"11\">%s</text>\n",
			x+16, textColor, html.EscapeString(s.Name))
		x += 150
	}
}

func (c LineChart) size() (int, int) {
	width, height := c.Width, c.Height
	if width <= marginLeft+marginRight {
		width = 800
	}
	if height <= marginTop+marginBottom {
		height = 400
	}
	return width, height
}

// timeRange spans all points; a single instant is widened to one minute around it.
func (c LineChart) timeRange() (time.Time, time.Time) {
	var tMin, tMax time.Time
	first := true
	for _, s := range c.Series {
		for _, p := range s.Points {
			if first || p.T.Before(tMin) {
				tMin = p.T
			}
			if first || p.T.After(tMax) {
				tMax = p.T
			}
			first = false
		}
	}
	if first {
		now := time.Now()
		return now.Add(-30 * time.Second), now.Add(30 * time.Second)
	}
	if !tMax.After(tMin) {
		tMin, tMax = tMin.Add(-30*time.Second), tMax.Add(30*time.Second)
	}
	return tMin, tMax
}

// valueRange pads the data range by 5% so markers stay inside the plot.
func (c LineChart) valueRange() (float64, float64) {
	if len(c.YTicks) > 0 {
		lo, hi := c.YTicks[0].Value, c.YTicks[0].Value
		for _, t := range c.YTicks[1:] {
			lo = math.Min(lo, t.Value)
			hi = math.Max(hi, t.Value)
		}
		pad := (hi - lo) * 0.1
		if pad == 0 {
			pad = 1
		}
		return lo - pad, hi + pad
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range c.Series {
		for _, p := range s.Points {
			lo = math.Min(lo, p.V)
			hi = math.Max(hi, p.V)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

func (c LineChart) yTicks(yMin, yMax float64) []Tick {
	if len(c.YTicks) > 0 {
		return c.YTicks
	}
	ticks := make([]Tick, 0, yTickCount)
	step := (yMax - yMin) / float64(yTickCount-1)
	for i := 0; i < yTickCount; i++ {
		v := yMin + step*float64(i)
		ticks = append(ticks, Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 1, 64)})
	}
	return ticks
}

func timeTicks(tMin, tMax time.Time) []time.Time {
	ticks := make([]time.Time, 0, xTickCount)
	step := tMax.Sub(tMin) / time.Duration(xTickCount-1)
	for i := 0; i < xTickCount; i++ {
		ticks = append(ticks, tMin.Add(step*time.Duration(i)))
	}
	return ticks
}
