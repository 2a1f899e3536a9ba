package sqlinline

const QListOverlaysByProject = `--sql a77c74e9-d3da-479f-adaa-0247350cdc01
select id, project_id, body, pos_x, pos_y, start_time, end_time, font_size, color, border_color, border_width, background, z_index
from overlays
where project_id = $1::text
order by z_index, start_time;
`

const QDeleteOverlaysByProject = `--sql 12da6796-615f-469f-b68d-8d6fee0124ae
delete from overlays
where project_id = $1::text;
`

const QInsertOverlay = `--sql 76a53e26-ac67-4d70-a87b-9c283bfb1836
insert into overlays(id, project_id, body, pos_x, pos_y, start_time, end_time, font_size, color, border_color, border_width, background, z_index)
values ($1::uuid, $2::text, $3::text, $4::double precision, $5::double precision, $6::double precision, $7::double precision, $8::int, $9::text, $10::text, $11::int, $12::text, $13::int);
`
