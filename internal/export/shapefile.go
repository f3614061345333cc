package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/martinbsolomon/philoca/internal/model"
)

// WriteShapefile writes the classified samples as a point shapefile with
// VALUE and CLASS attributes. Desktop GIS users overlay these on nautical
// charts that never reach the web map.
func WriteShapefile(path string, cls model.Classification) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	fields := []shp.Field{
		shp.FloatField("VALUE", 19, 6),
		shp.StringField("CLASS", 8),
		shp.FloatField("THRESHOLD", 19, 6),
	}
	w.SetFields(fields)

	write := func(samples []model.Sample, class string) error {
		for _, s := range samples {
			n := w.Write(&shp.Point{X: s.Longitude, Y: s.Latitude})
			if err := w.WriteAttribute(int(n), 0, s.Value); err != nil {
				return eris.Wrap(err, "export: write VALUE attribute")
			}
			if err := w.WriteAttribute(int(n), 1, class); err != nil {
				return eris.Wrap(err, "export: write CLASS attribute")
			}
			if err := w.WriteAttribute(int(n), 2, cls.Threshold); err != nil {
				return eris.Wrap(err, "export: write THRESHOLD attribute")
			}
		}
		return nil
	}

	if err := write(cls.Above, ClassAbove); err != nil {
		return err
	}
	if err := write(cls.Below, ClassBelow); err != nil {
		return err
	}

	zap.L().Info("shapefile written",
		zap.String("path", path),
		zap.Int("points", len(cls.Above)+len(cls.Below)),
	)
	return nil
}
