package oreasset

import (
	"encoding/json"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqlUpdateTile  = `INSERT INTO tiles (id, x, y, tx, ty) VALUES (:id, :x, :y, :tx, :ty) ON CONFLICT (id) DO UPDATE SET tx=EXCLUDED.tx, ty=EXCLUDED.ty;`
	sqlDeleteTile  = `DELETE FROM tiles WHERE id=:id;`
	sqlInsertObj   = `INSERT INTO objects (x, y, class, data) VALUES (:x, :y, :class, :data);`
	sqlTilesInRect = `SELECT id,x,y,tx,ty FROM tiles WHERE x>=:x0 AND x<:x1 AND y>=:y0 AND y<:y1;`
	sqlObjsInRect  = `SELECT id,x,y,class,data FROM objects WHERE x>=:x0 AND x<:x1 AND y>=:y0 AND y<:y1 ORDER BY id;`
)

// NewCanvas creates a canvas in a randomly named database in the os tempdir.
func NewCanvas() (*Canvas, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	fname := filepath.Join(os.TempDir(), fmt.Sprintf("orecanvas.%d.sqlite", rng.Intn(1000000)))
	return OpenCanvas(fname)
}

// OpenCanvas given it's filename (database file) on disk.
// Will create if it doesn't exist.
func OpenCanvas(fname string) (*Canvas, error) {
	db, err := sqlx.Open("sqlite3", fname)
	if err != nil {
		return nil, err
	}

	c := &Canvas{db: db, filename: fname}
	return c, c.init()
}

// Canvas is an unbounded sketch of tiles & objects kept on disk.
//
// Levels are small & fixed size; a canvas lets a world be laid out (or levels
// stitched together) in one place and then cropped into levels of whatever
// size the target wants. Tile coordinates may be negative.
type Canvas struct {
	filename string
	db       *sqlx.DB
}

// Filename returns the path to the canvas data on disk
func (c *Canvas) Filename() string {
	return c.filename
}

// Close the database
func (c *Canvas) Close() error {
	return c.db.Close()
}

// At returns the atlas tile at cell (x,y), or Empty.
func (c *Canvas) At(x, y int) (image.Point, error) {
	rows, err := c.db.NamedQuery(
		"SELECT id,x,y,tx,ty FROM tiles WHERE id=:id LIMIT 1;",
		map[string]interface{}{"id": cellID(x, y)},
	)
	if err != nil {
		return Empty, err
	}
	defer rows.Close()

	t := dbCell{}
	for rows.Next() { // there's at most one due to LIMIT 1
		if err := rows.StructScan(&t); err != nil {
			return Empty, err
		}
		return image.Pt(t.TX, t.TY), nil
	}
	return Empty, rows.Err()
}

// Set the atlas tile at cell (x,y). Setting Empty clears the cell.
func (c *Canvas) Set(x, y int, tile image.Point) error {
	if tile == Empty {
		_, err := c.db.NamedExec(sqlDeleteTile, newDBCell(x, y, tile))
		return err
	}
	_, err := c.db.NamedExec(sqlUpdateTile, newDBCell(x, y, tile))
	return err
}

// AddObject places an object of the named class at pixel (x,y).
func (c *Canvas) AddObject(x, y int, class string, values []string) error {
	obj, err := newDBObject(x, y, class, values)
	if err != nil {
		return err
	}
	_, err = c.db.NamedExec(sqlInsertObj, obj)
	return err
}

// Fits returns if the w x h cells starting at (x,y) are all empty.
func (c *Canvas) Fits(x, y, w, h int) (bool, error) {
	rows, err := c.db.NamedQuery(
		"SELECT count(*) as num FROM tiles WHERE x>=:x0 AND x<:x1 AND y>=:y0 AND y<:y1;",
		rectArgs(x, y, x+w, y+h),
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var num int64
	for rows.Next() { // should only be one row
		if err := rows.Scan(&num); err != nil {
			return false, err
		}
	}
	return num == 0, rows.Err()
}

// Bounds returns the smallest cell rectangle holding every tile.
func (c *Canvas) Bounds() (image.Rectangle, error) {
	row := c.db.QueryRowx("SELECT count(*), coalesce(min(x),0), coalesce(min(y),0), coalesce(max(x),0), coalesce(max(y),0) FROM tiles;")
	var n, x0, y0, x1, y1 int
	if err := row.Scan(&n, &x0, &y0, &x1, &y1); err != nil {
		return image.Rectangle{}, err
	}
	if n == 0 {
		return image.Rectangle{}, nil
	}
	return image.Rect(x0, y0, x1+1, y1+1), nil
}

// Paint copies every non empty cell & every object of l onto the canvas with
// its top left corner at cell (x,y).
func (c *Canvas) Paint(x, y int, l *Level) error {
	cells := []dbCell{}
	for ty := 0; ty < l.Height; ty++ {
		for tx := 0; tx < l.Width; tx++ {
			t := l.At(image.Pt(tx, ty))
			if t == Empty {
				continue
			}
			cells = append(cells, newDBCell(x+tx, y+ty, t))
		}
	}

	off := image.Pt(x, y)
	if l.Tileset != nil {
		off = image.Pt(x*l.Tileset.TileSize.X, y*l.Tileset.TileSize.Y)
	}
	objs := []dbObject{}
	for _, o := range l.Objects {
		obj, err := newDBObject(o.Pos.X+off.X, o.Pos.Y+off.Y, o.Class.Name, o.Values)
		if err != nil {
			return err
		}
		objs = append(objs, obj)
	}

	txn, err := c.db.Beginx()
	if err != nil {
		return err
	}
	for _, cell := range cells {
		if _, err := txn.NamedExec(sqlUpdateTile, cell); err != nil {
			txn.Rollback()
			return err
		}
	}
	for _, obj := range objs {
		if _, err := txn.NamedExec(sqlInsertObj, obj); err != nil {
			txn.Rollback()
			return err
		}
	}
	return txn.Commit()
}

// Level returns a level with all tiles & objects from the canvas in the cell
// rectangle (x0,y0,x1,y1). Objects are kept if their pixel position falls in
// the rectangle. As with DecodeLevel, objects whose class can't be found
// are left out & their class names returned.
func (c *Canvas) Level(name string, tileset *Atlas, classes ClassResolver, x0, y0, x1, y1 int) (*Level, []string, error) {
	if x1 <= x0 || y1 <= y0 {
		return nil, nil, fmt.Errorf("requested level dimensions invalid, unable to crop level")
	}
	if tileset == nil {
		return nil, nil, ErrNoAtlas
	}

	l := NewLevel(name, tileset, x1-x0, y1-y0)

	rows, err := c.db.NamedQuery(sqlTilesInRect, rectArgs(x0, y0, x1, y1))
	if err != nil {
		return nil, nil, err
	}
	t := dbCell{}
	for rows.Next() {
		if err := rows.StructScan(&t); err != nil {
			rows.Close()
			return nil, nil, err
		}
		l.Data[(t.X-x0)+(t.Y-y0)*l.Width] = image.Pt(t.TX, t.TY)
	}
	rows.Close()

	ts := tileset.TileSize
	rows, err = c.db.NamedQuery(sqlObjsInRect, rectArgs(x0*ts.X, y0*ts.Y, x1*ts.X, y1*ts.Y))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	dropped := []string{}
	obj := dbObject{}
	for rows.Next() {
		if err := rows.StructScan(&obj); err != nil {
			l.Release()
			return nil, nil, err
		}
		class, ok := classes(obj.Class)
		if !ok {
			dropped = append(dropped, obj.Class)
			continue
		}
		values := []string{}
		if err := json.Unmarshal([]byte(obj.Data), &values); err != nil {
			l.Release()
			return nil, nil, err
		}
		for j := len(values); j < len(class.Properties); j++ {
			values = append(values, class.Properties[j].Default)
		}
		pos := image.Pt(obj.X-x0*ts.X, obj.Y-y0*ts.Y)
		l.Objects = append(l.Objects, class.adopt(pos, values[:len(class.Properties)]))
	}
	if err := rows.Err(); err != nil {
		l.Release()
		return nil, nil, err
	}
	if err := l.Validate(); err != nil {
		l.Release()
		return nil, nil, err
	}
	return l, dropped, nil
}

// init creates some DB tables for us if they don't exist
func (c *Canvas) init() error {
	createTiles := `CREATE TABLE IF NOT EXISTS tiles(
		id TEXT PRIMARY KEY,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		tx INTEGER NOT NULL,
		ty INTEGER NOT NULL
	    );`
	_, err := c.db.Exec(createTiles)
	if err != nil {
		return err
	}

	createObjects := `CREATE TABLE IF NOT EXISTS objects(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		class TEXT NOT NULL,
		data TEXT
	    );`

	_, err = c.db.Exec(createObjects)
	return err
}

func rectArgs(x0, y0, x1, y1 int) map[string]interface{} {
	return map[string]interface{}{
		"x0": x0, "x1": x1,
		"y0": y0, "y1": y1,
	}
}

func cellID(x, y int) string {
	return fmt.Sprintf("%d-%d", x, y)
}

// dbCell encodes a single cell.
// The ID here is used to insert/update on a unique cell by it's (x,y)
// with a more straight forward query.
type dbCell struct {
	ID string `db:"id"`
	X  int    `db:"x"`
	Y  int    `db:"y"`
	TX int    `db:"tx"`
	TY int    `db:"ty"`
}

func newDBCell(x, y int, tile image.Point) dbCell {
	return dbCell{ID: cellID(x, y), X: x, Y: y, TX: tile.X, TY: tile.Y}
}

// dbObject encodes one placed object. Values are encoded into JSON.
type dbObject struct {
	ID    int64  `db:"id"`
	X     int    `db:"x"`
	Y     int    `db:"y"`
	Class string `db:"class"`
	Data  string `db:"data"`
}

func newDBObject(x, y int, class string, values []string) (dbObject, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return dbObject{}, err
	}
	return dbObject{X: x, Y: y, Class: class, Data: string(data)}, nil
}
