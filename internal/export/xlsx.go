package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/martinbsolomon/philoca/internal/model"
)

// WriteReport writes an XLSX workbook with one statistics sheet per summary
// and a samples sheet per parameter. This is the hand-out format for
// monitoring partners who work from spreadsheets.
func WriteReport(path string, results []ReportSection) error {
	file := xlsx.NewFile()

	stats, err := file.AddSheet("Statistics")
	if err != nil {
		return eris.Wrap(err, "export: add statistics sheet")
	}

	header := stats.AddRow()
	for _, h := range []string{
		"Parameter", "Mean", "Median", "Std Dev", "Min", "Max",
		"Count", "Above", "Below", "Above %", "Below %",
	} {
		header.AddCell().Value = h
	}

	for _, sec := range results {
		sum := sec.Summary
		row := stats.AddRow()
		row.AddCell().Value = sum.Parameter
		row.AddCell().SetFloat(sum.Mean)
		row.AddCell().SetFloat(sum.Median)
		row.AddCell().SetFloat(sum.StdDev)
		row.AddCell().SetFloat(sum.Min)
		row.AddCell().SetFloat(sum.Max)
		row.AddCell().SetInt(sum.Count)
		row.AddCell().SetInt(sum.AboveCount)
		row.AddCell().SetInt(sum.BelowCount)
		row.AddCell().SetFloat(sum.AboveFraction * 100)
		row.AddCell().SetFloat(sum.BelowFraction * 100)
	}

	for _, sec := range results {
		if err := addSampleSheet(file, sec); err != nil {
			return err
		}
	}

	return eris.Wrapf(file.Save(path), "export: save report %s", path)
}

// ReportSection bundles one parameter's outputs for the report.
type ReportSection struct {
	Summary        model.Summary
	Classification model.Classification
}

func addSampleSheet(file *xlsx.File, sec ReportSection) error {
	sheet, err := file.AddSheet(sec.Summary.Parameter)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", sec.Summary.Parameter)
	}

	header := sheet.AddRow()
	for _, h := range []string{"Latitude", "Longitude", "Value", "Class"} {
		header.AddCell().Value = h
	}

	write := func(samples []model.Sample, class string) {
		for _, s := range samples {
			row := sheet.AddRow()
			row.AddCell().SetFloat(s.Latitude)
			row.AddCell().SetFloat(s.Longitude)
			row.AddCell().SetFloat(s.Value)
			row.AddCell().Value = class
		}
	}
	write(sec.Classification.Above, ClassAbove)
	write(sec.Classification.Below, ClassBelow)

	return nil
}
