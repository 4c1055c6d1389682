package tabql

import (
	"strconv"

	"github.com/nao1215/tabql/domain/model"
)

// sequentialTablePrefix prefixes table names in sequential naming mode.
const sequentialTablePrefix = "tbl"

// tableName returns the table a source loads into. Sequential naming uses
// the source position; filename naming uses the file name without its
// directory and extensions, and "-" for standard input.
func tableName(naming TableNaming, index int, file *model.File) string {
	if naming == TableNamingFilename {
		return file.TableName()
	}
	return sequentialTablePrefix + strconv.Itoa(index)
}
